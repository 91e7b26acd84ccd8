// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode sorts map keys and uses the shortest integer forms (RFC 8949
// §4.2 core deterministic encoding); times are RFC 3339 text so a
// record's time reads the same in CBOR and JSON outputs.
var encMode cbor.EncMode

// decMode yields map[string]any for untyped maps, the shape
// encoding/json and the record consumers expect.
var decMode cbor.DecMode

func init() {
	options := cbor.CoreDetEncOptions()
	options.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = options.EncMode(); err != nil {
		panic("codec: building CBOR encode mode: " + err.Error())
	}
	decOptions := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}
	if decMode, err = decOptions.DecMode(); err != nil {
		panic("codec: building CBOR decode mode: " + err.Error())
	}
}

// Marshal encodes one item.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes one item.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// Diagnose renders one encoded item in diagnostic notation, for logs
// and test failures.
func Diagnose(data []byte) (string, error) { return cbor.Diagnose(data) }
