// SPDX-License-Identifier: MIT

package reader

import "encoding/json"

// ParseDetections decodes one inbound `stream/tag` message into zero or
// more Detections, tolerating both the array form and the flat/legacy
// form documented for the detection topic. A malformed (non-JSON) payload
// returns an error; a well-formed payload missing every EPC field returns
// no error and no detections.
func ParseDetections(payload []byte) ([]Detection, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	gateID := firstString(raw, "id", "clientId")

	if tagsRaw, ok := raw["tags"]; ok {
		tags, _ := tagsRaw.([]any)
		out := make([]Detection, 0, len(tags))
		for _, t := range tags {
			fields, ok := t.(map[string]any)
			if !ok {
				continue
			}
			epc := firstString(fields, "epc", "idHex")
			if epc == "" {
				continue
			}
			out = append(out, Detection{
				RawEPC:  epc,
				GateID:  gateID,
				RSSI:    firstFloat(fields, "rssi"),
				Antenna: firstInt(fields, "ant", "antenna"),
			})
		}
		return out, nil
	}

	fields := raw
	if dataRaw, ok := raw["data"]; ok {
		if nested, ok := dataRaw.(map[string]any); ok {
			fields = nested
		}
	}

	epc := firstString(fields, "idHex", "epc")
	if epc == "" {
		return nil, nil
	}

	return []Detection{{
		RawEPC:  epc,
		GateID:  gateID,
		RSSI:    firstFloat(fields, "peakRssi", "rssi"),
		Antenna: firstInt(fields, "antenna", "ant"),
	}}, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstFloat(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return &f
			}
		}
	}
	return nil
}

func firstInt(m map[string]any, keys ...string) *int {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				n := int(f)
				return &n
			}
		}
	}
	return nil
}
