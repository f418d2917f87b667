package models

// Member 是房間中目前連線的成員，不會寫入資料庫
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomInfo 是房間列表中的一筆資料，不包含密碼雜湊
type RoomInfo struct {
	RoomNo    int    `json:"roomNo"`
	IsCreated bool   `json:"isCreated"`
	Text      string `json:"text"`
	System    string `json:"system"`
}

// RoomData 是提供給客戶端的整理後房間資料
type RoomData struct {
	Member    []Member      `json:"member"`
	IsCreated bool          `json:"isCreated"`
	RoomNo    int           `json:"roomNo"`
	RoomName  string        `json:"roomName"`
	System    string        `json:"system"`
	ChatLog   []ChatMessage `json:"chatLog,omitempty"`
	Chits     []Chit        `json:"chits,omitempty"`
	Status    string        `json:"status,omitempty"`
	Map       string        `json:"map,omitempty"`
}
