// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"io"
	"mime"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/ugorji/go/codec"
)

// jsonHandle returns the codec configuration shared by Encode and
// Decode.  Untyped JSON objects decode as map[string]interface{}.
func jsonHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// Decode decodes a JSON body from a reader, such as an HTTP response.
// out must be a pointer type.  An empty content type is assumed to be
// JSON, since the engine does not always label its responses.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return err
		}
		switch mediaType {
		case "text/json", JSONMediaType:
		default:
			return ErrUnsupportedMediaType{Type: mediaType}
		}
	}
	decoder := codec.NewDecoder(r, jsonHandle())
	return decoder.Decode(out)
}

// Encode writes in as JSON.
func Encode(w io.Writer, in interface{}) error {
	encoder := codec.NewEncoder(w, jsonHandle())
	return encoder.Encode(in)
}

// EncodeBytes returns the JSON encoding of in.
func EncodeBytes(in interface{}) ([]byte, error) {
	var out []byte
	encoder := codec.NewEncoderBytes(&out, jsonHandle())
	err := encoder.Encode(in)
	return out, err
}

// FormatTime renders a time in the engine's date format.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses a time in the engine's date format.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// stringToTime is a mapstructure decode hook that parses engine
// timestamps.
func stringToTime(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	return ParseTime(data.(string))
}

// load checks that every required key is present in data, then
// decodes data into out using the "json" struct tags.
func load(record string, data map[string]interface{}, required []string, out interface{}) error {
	if data == nil {
		return &MissingFieldError{Record: record, Field: required[0]}
	}
	for _, key := range required {
		if _, present := data[key]; !present {
			return &MissingFieldError{Record: record, Field: key}
		}
	}
	config := mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncType(stringToTime),
		TagName:    "json",
		Result:     out,
	}
	decoder, err := mapstructure.NewDecoder(&config)
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}
