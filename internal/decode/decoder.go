// Package decode turns one encoded delivery-stream record into a typed
// metric event. It is the only place the raw payload is accessed by field
// name.
package decode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// Payload field names as emitted by the upstream ticker producer.
const (
	FieldTicker = "TICKER_SYMBOL"
	FieldPrice  = "PRICE"
	FieldChange = "CHANGE"
	FieldSector = "SECTOR"
)

var (
	ErrMalformedEncoding = errors.New("malformed transport encoding")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrMissingField      = errors.New("missing required field")
)

// Decode base64-decodes data and parses the JSON object inside it.
// ObservedAt is left zero; the caller stamps it.
func Decode(data string) (models.MetricEvent, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return models.MetricEvent{}, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return Parse(raw)
}

// Parse validates an already-decoded JSON payload.
func Parse(raw []byte) (models.MetricEvent, error) {
	if !gjson.ValidBytes(raw) {
		return models.MetricEvent{}, fmt.Errorf("%w: invalid JSON", ErrMalformedPayload)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return models.MetricEvent{}, fmt.Errorf("%w: expected JSON object", ErrMalformedPayload)
	}

	ticker := doc.Get(FieldTicker)
	switch {
	case !ticker.Exists() || ticker.Type == gjson.Null:
		return models.MetricEvent{}, fmt.Errorf("%w: %s", ErrMissingField, FieldTicker)
	case ticker.Type != gjson.String:
		return models.MetricEvent{}, fmt.Errorf("%w: %s must be a string", ErrMalformedPayload, FieldTicker)
	case ticker.Str == "":
		return models.MetricEvent{}, fmt.Errorf("%w: %s is empty", ErrMissingField, FieldTicker)
	}

	price := doc.Get(FieldPrice)
	switch {
	case !price.Exists() || price.Type == gjson.Null:
		return models.MetricEvent{}, fmt.Errorf("%w: %s", ErrMissingField, FieldPrice)
	case price.Type != gjson.Number:
		return models.MetricEvent{}, fmt.Errorf("%w: %s must be a number", ErrMalformedPayload, FieldPrice)
	case !finite(price.Num):
		return models.MetricEvent{}, fmt.Errorf("%w: %s %s is out of range", ErrMalformedPayload, FieldPrice, price.Raw)
	}

	ev := models.MetricEvent{
		Ticker: ticker.Str,
		Price:  price.Num,
	}

	if change := doc.Get(FieldChange); change.Exists() && change.Type != gjson.Null {
		if change.Type != gjson.Number {
			return models.MetricEvent{}, fmt.Errorf("%w: %s must be a number", ErrMalformedPayload, FieldChange)
		}
		if !finite(change.Num) {
			return models.MetricEvent{}, fmt.Errorf("%w: %s %s is out of range", ErrMalformedPayload, FieldChange, change.Raw)
		}
		c := change.Num
		ev.Change = &c
	}

	if sector := doc.Get(FieldSector); sector.Exists() && sector.Type != gjson.Null {
		if sector.Type != gjson.String {
			return models.MetricEvent{}, fmt.Errorf("%w: %s must be a string", ErrMalformedPayload, FieldSector)
		}
		ev.Sector = sector.Str
	}

	return ev, nil
}

// finite rejects literals like 1e400 that parse to ±Inf; no store accepts them.
func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
