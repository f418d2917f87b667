package models

import "encoding/json"

// 拆出已知欄位，其餘欄位原樣保留
func splitObject(data []byte, known ...string) (map[string]json.RawMessage, map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, nil, err
	}
	picked := make(map[string]json.RawMessage, len(known))
	for _, k := range known {
		if v, ok := all[k]; ok {
			picked[k] = v
			delete(all, k)
		}
	}
	if len(all) == 0 {
		all = nil
	}
	return picked, all, nil
}

func mergeObject(extra map[string]json.RawMessage, known map[string]any) ([]byte, error) {
	out := make(map[string]any, len(extra)+len(known))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
