package models

import "encoding/json"

// Image 是全伺服器共用的圖片描述
type Image struct {
	ID    ID
	Extra map[string]json.RawMessage
}

func (i Image) MarshalJSON() ([]byte, error) {
	return mergeObject(i.Extra, map[string]any{"id": i.ID})
}

func (i *Image) UnmarshalJSON(data []byte) error {
	known, extra, err := splitObject(data, "id")
	if err != nil {
		return err
	}
	var img Image
	if err := decodeField(known, "id", &img.ID); err != nil {
		return err
	}
	img.Extra = extra
	*i = img
	return nil
}

func RemoveImage(images []Image, id ID) []Image {
	out := make([]Image, 0, len(images))
	for _, img := range images {
		if img.ID != id {
			out = append(out, img)
		}
	}
	return out
}
