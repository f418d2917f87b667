package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

var errInvalidID = errors.New("id must be a string or number")

// ID 是客戶端送來的識別碼（字串或數字）的標準 JSON 文字，
// 同一個值不論原本如何跳脫或書寫都得到相同的 ID
type ID string

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return []byte(id), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	var canonical string
	switch v := v.(type) {
	case string:
		canonical = encodeString(v)
	case json.Number:
		n, err := canonicalNumber(v)
		if err != nil {
			return err
		}
		canonical = n
	default:
		return errInvalidID
	}
	*id = ID(canonical)
	return nil
}

// StringID 將一般字串轉成 ID
func StringID(s string) ID {
	return ID(encodeString(s))
}

// encodeString 不做 HTML 跳脫，"a\u0026b" 與 "a&b" 得到相同結果
func encodeString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// canonicalNumber 整數值一律寫成整數，1 與 1.0 視為同一個 ID
func canonicalNumber(n json.Number) (string, error) {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", errInvalidID
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
