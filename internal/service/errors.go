package service

import "errors"

var (
	ErrInvalidRoom        = errors.New("不正確的房間編號")
	ErrRoomNotCreated     = errors.New("房間尚未建立")
	ErrPasswordMismatch   = errors.New("密碼不一致")
	ErrRoomAlreadyCreated = errors.New("房間已經建立")
	ErrNotInRoom          = errors.New("尚未進入房間")
	ErrInvalidPayload     = errors.New("無效的資料格式")
	ErrUnknownEvent       = errors.New("不支援的事件")
	ErrStopped            = errors.New("房間已停止服務")
)

// 回報給客戶端的訊息，非預期的錯誤不外洩細節
func clientMessage(err error) string {
	for _, known := range []error{
		ErrInvalidRoom, ErrRoomNotCreated, ErrPasswordMismatch, ErrRoomAlreadyCreated,
		ErrNotInRoom, ErrInvalidPayload, ErrUnknownEvent, ErrStopped,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "伺服器錯誤"
}

func isValidationError(err error) bool {
	return clientMessage(err) != "伺服器錯誤"
}
