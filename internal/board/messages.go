package board

import (
	"errors"

	"busboard.hk/internal/transit"
)

// Message is user-facing text in Traditional Chinese and English.
type Message struct {
	TC string `json:"tc"`
	EN string `json:"en"`
}

// In returns the text for lang ("tc" or "en").
func (m Message) In(lang string) string {
	if lang == "en" {
		return m.EN
	}
	return m.TC
}

var (
	MsgCatalogUnavailable = Message{
		TC: "無法載入路線資料，請稍後再試。",
		EN: "Failed to load routes. Please try again.",
	}
	MsgNoBound = Message{
		TC: "此路線暫時沒有任何方向的資料。",
		EN: "No data is available for this route in either direction.",
	}
	MsgStopsFailed = Message{
		TC: "無法載入車站資料，請重試。",
		EN: "Failed to fetch route details. Please try again.",
	}
	MsgNetwork = Message{
		TC: "網絡連線出現問題，請重試。",
		EN: "A network error occurred. Please try again.",
	}
	MsgNoETA = Message{
		TC: "暫無班次資料",
		EN: "No ETA available",
	}
	MsgNoMatch = Message{
		TC: "沒有你要搜尋的路線",
		EN: "No route matches your search",
	}
	MsgSearchHint = Message{
		TC: "數字:1-9 字母:A,B,C,D,E,H,I,K,M,N,P,R,S,T,W,X",
		EN: "Digits: 1-9 Letters: A,B,C,D,E,H,I,K,M,N,P,R,S,T,W,X",
	}
)

// MessageFor maps a stage error onto the text shown in place of the loading
// indicator.
func MessageFor(err error) Message {
	switch {
	case errors.Is(err, transit.ErrCatalogUnavailable):
		return MsgCatalogUnavailable
	case errors.Is(err, transit.ErrNoBoundAvailable):
		return MsgNoBound
	case errors.Is(err, transit.ErrStopResolutionFailed):
		return MsgStopsFailed
	default:
		return MsgNetwork
	}
}
