/*
Copyright 2026 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package dxr

import (
	"encoding/json"
	"fmt"
	"strings"
)

func toHex(v any) string {
	switch t := v.(type) {
	case uint8, uint16, uint32, DescriptorHeapType, ResourceState:
		return fmt.Sprintf("0x%02X", t)
	case CPUDescriptorHandle:
		return fmt.Sprintf("0x%016X", t.Ptr)
	case GPUDescriptorHandle:
		return fmt.Sprintf("0x%016X", t.Ptr)
	case uint64, uintptr:
		return fmt.Sprintf("0x%016X", t)
	}
	panic(fmt.Sprintf("Unknown/Unhandled type: %T", v))
}

func genID(items ...any) string {
	sb := strings.Builder{}
	for _, i := range items {
		switch t := i.(type) {
		case string:
			sb.WriteString(t)
		case fmt.Stringer:
			sb.WriteString(t.String())
		case int:
			fmt.Fprintf(&sb, "%d", t)
		default:
			sb.WriteString(toHex(i))
		}
		sb.WriteRune(',')
	}
	if sb.Len() == 0 {
		return "[]"
	}
	return "[" + sb.String()[:sb.Len()-1] + "]"
}

func jsonString(target any) string {
	bytes, err := json.Marshal(target)
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return strings.TrimSpace(string(bytes))
}

func prettyString(target json.Marshaler) string {
	bytes, err := json.MarshalIndent(target, "", "    ")
	if err != nil {
		return err.Error()
	}
	return strings.TrimSpace(string(bytes))
}
