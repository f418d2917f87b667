package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidTicket = errors.New("invalid room ticket")

// TicketClaims 綁定房間編號與密碼雜湊指紋，房間重設後舊票券即失效
type TicketClaims struct {
	RoomNo      int    `json:"room_no"`
	Name        string `json:"name"`
	Fingerprint string `json:"fp"`
	jwt.StandardClaims
}

type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTicketIssuer(secret string, ttl time.Duration) *TicketIssuer {
	return &TicketIssuer{secret: []byte(secret), ttl: ttl}
}

// Generate 產生重新進入房間用的票券
func (i *TicketIssuer) Generate(roomNo int, name, passwordHash string) (string, error) {
	nowTime := time.Now()
	expireTime := nowTime.Add(i.ttl)

	claims := TicketClaims{
		RoomNo:      roomNo,
		Name:        name,
		Fingerprint: Fingerprint(passwordHash),
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expireTime.Unix(),
			IssuedAt:  nowTime.Unix(),
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenClaims.SignedString(i.secret)
}

// Verify 驗證票券的簽章、期限以及是否屬於指定房間
func (i *TicketIssuer) Verify(ticket string, roomNo int, passwordHash string) (*TicketClaims, error) {
	tokenClaims, err := jwt.ParseWithClaims(ticket, &TicketClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidTicket
		}
		return i.secret, nil
	})
	if err != nil || tokenClaims == nil || !tokenClaims.Valid {
		return nil, ErrInvalidTicket
	}

	claims, ok := tokenClaims.Claims.(*TicketClaims)
	if !ok || claims.RoomNo != roomNo || claims.Fingerprint != Fingerprint(passwordHash) {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}

// Fingerprint 取密碼雜湊的 sha256 前 16 碼
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
