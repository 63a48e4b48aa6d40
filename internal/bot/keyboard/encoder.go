package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// Callback uniques used by the gift wizard.
const (
	UniqueCatalog         = "catalog"
	UniqueCatalogMainMenu = "catalog_main_menu"
	UniqueGift            = "catalog_gift"
	UniqueConfirmPurchase = "confirm_purchase"
	UniqueCancelPurchase  = "cancel_purchase"
)

// EncodeCallback joins unique and data, rejecting payloads above Telegram's limit.
func EncodeCallback(unique, data string) (string, error) {
	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}

	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// DecodeCallback splits callback data at the first separator.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	return unique, data, nil
}
