// Package pixcode собирает строку «PIX copia e cola» (BR Code, формат EMV MPM)
// для статического платежа с фиксированной суммой.
package pixcode

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	gui            = "br.gov.bcb.pix"
	currencyBRL    = "986"
	countryCode    = "BR"
	maxNameLen     = 25
	maxCityLen     = 15
	maxTxIDLen     = 25
	crcPlaceholder = "6304"
)

// Payload описывает данные, которые кодируются в BR Code.
type Payload struct {
	Key          string // PIX‑ключ получателя
	MerchantName string
	MerchantCity string
	Amount       int64  // в сентаво
	TxID         string // идентификатор транзакции, только [A-Za-z0-9]
}

// Encode формирует строку BR Code с контрольной суммой CRC16-CCITT.
func Encode(p Payload) (string, error) {
	const op = "pixcode.Encode"
	if p.Key == "" {
		return "", fmt.Errorf("%s: %w", op, errors.New("pix key is empty"))
	}
	if p.Amount <= 0 {
		return "", fmt.Errorf("%s: %w", op, errors.New("amount must be positive"))
	}

	account := field("00", gui) + field("01", p.Key)
	txID := sanitize(p.TxID, maxTxIDLen)
	if txID == "" {
		txID = "***"
	}

	var b strings.Builder
	b.WriteString(field("00", "01"))
	b.WriteString(field("26", account))
	b.WriteString(field("52", "0000"))
	b.WriteString(field("53", currencyBRL))
	b.WriteString(field("54", FormatAmount(p.Amount)))
	b.WriteString(field("58", countryCode))
	b.WriteString(field("59", truncate(strings.ToUpper(p.MerchantName), maxNameLen)))
	b.WriteString(field("60", truncate(strings.ToUpper(p.MerchantCity), maxCityLen)))
	b.WriteString(field("62", field("05", txID)))
	b.WriteString(crcPlaceholder)

	body := b.String()
	return body + fmt.Sprintf("%04X", CRC16([]byte(body))), nil
}

// Verify проверяет контрольную сумму строки BR Code.
func Verify(code string) bool {
	if len(code) < 8 || code[len(code)-8:len(code)-4] != crcPlaceholder {
		return false
	}
	body := code[:len(code)-4]
	return fmt.Sprintf("%04X", CRC16([]byte(body))) == code[len(code)-4:]
}

// FormatAmount переводит сентаво в строку вида "19.90".
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// CRC16 считает CRC16-CCITT-FALSE (poly 0x1021, init 0xFFFF).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, c := range data {
		crc ^= uint16(c) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func field(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sanitize(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return truncate(b.String(), n)
}
