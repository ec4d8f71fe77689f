package search

import (
	"encoding/hex"
	"github.com/mr-tron/base58"
	"strconv"
	"strings"
)

type Intent int

const (
	IntentUnrecognized Intent = iota
	IntentHeight
	IntentHash
	IntentAddress
)

func (i Intent) String() string {
	switch i {
	case IntentHeight:
		return "height"
	case IntentHash:
		return "hash"
	case IntentAddress:
		return "address"
	default:
		return "unrecognized"
	}
}

// Classify decides by shape only which lookup a query needs.
func Classify(query string) Intent {
	query = strings.TrimSpace(query)
	if query == "" {
		return IntentUnrecognized
	}
	if isDigits(query) {
		if _, err := strconv.ParseUint(query, 10, 64); err != nil {
			return IntentUnrecognized
		}
		return IntentHeight
	}

	switch len(query) {
	case 64:
		if isHex(query) || isBase58(query) {
			return IntentHash
		}
	case 44:
		if isBase58(query) {
			return IntentHash
		}
	case 48, 66, 98:
		if isBase58(query) {
			return IntentAddress
		}
	}
	return IntentUnrecognized
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

func isBase58(s string) bool {
	_, err := base58.Decode(s)
	return err == nil
}
