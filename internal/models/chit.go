package models

import (
	"encoding/json"
	"strings"
)

type StatusType string

const (
	StatusTypeBool   StatusType = "bool"
	StatusTypeNumber StatusType = "number"
)

// StatusField 是棋子狀態中的一個欄位
type StatusField struct {
	Name  string     `json:"name"`
	Type  StatusType `json:"type"`
	Value any        `json:"value"`
}

// ParseStatusTemplate 解析以空白分隔的狀態樣板，"*" 開頭為布林欄位，其餘為數值欄位
func ParseStatusTemplate(template string) []StatusField {
	tokens := strings.Fields(template)
	fields := make([]StatusField, 0, len(tokens))
	for _, tok := range tokens {
		if strings.HasPrefix(tok, "*") {
			name := tok[1:]
			if name == "" {
				continue
			}
			fields = append(fields, StatusField{Name: name, Type: StatusTypeBool, Value: false})
			continue
		}
		fields = append(fields, StatusField{Name: tok, Type: StatusTypeNumber, Value: float64(0)})
	}
	return fields
}

// Chit 代表地圖上的一個棋子，除 id 與 status 外的欄位原樣保留
type Chit struct {
	ID     ID
	Status []StatusField
	Extra  map[string]json.RawMessage
}

func (c Chit) MarshalJSON() ([]byte, error) {
	status := c.Status
	if status == nil {
		status = []StatusField{}
	}
	return mergeObject(c.Extra, map[string]any{
		"id":     c.ID,
		"status": status,
	})
}

func (c *Chit) UnmarshalJSON(data []byte) error {
	known, extra, err := splitObject(data, "id", "status")
	if err != nil {
		return err
	}
	var chit Chit
	if err := decodeField(known, "id", &chit.ID); err != nil {
		return err
	}
	if err := decodeField(known, "status", &chit.Status); err != nil {
		return err
	}
	chit.Extra = extra
	*c = chit
	return nil
}

// ApplyStatusSchema 以新的樣板重建每個棋子的狀態，舊值不保留
func ApplyStatusSchema(chits []Chit, template string) []Chit {
	out := make([]Chit, len(chits))
	for i, c := range chits {
		c.Status = ParseStatusTemplate(template)
		out[i] = c
	}
	return out
}

// RemoveChit 回傳移除指定 id 後的新切片，其餘棋子保持原本順序
func RemoveChit(chits []Chit, id ID) []Chit {
	out := make([]Chit, 0, len(chits))
	for _, c := range chits {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// UpsertChit 移除同 id 的舊棋子後把新棋子放到最後
func UpsertChit(chits []Chit, chit Chit) []Chit {
	return append(RemoveChit(chits, chit.ID), chit)
}
