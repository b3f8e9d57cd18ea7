package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// BoolValue returns a settings key parsed as a boolean. String and numeric
// encodings are tolerated because admin panels post values inconsistently.
func BoolValue(key string) (bool, bool) {
	raw, ok := DBConfigValue(key)
	if !ok {
		return false, false
	}
	raw = bytes.TrimSpace(raw)
	var parsedBool bool
	if errUnmarshal := json.Unmarshal(raw, &parsedBool); errUnmarshal == nil {
		return parsedBool, true
	}
	var parsedString string
	if errUnmarshal := json.Unmarshal(raw, &parsedString); errUnmarshal == nil {
		switch strings.ToLower(strings.TrimSpace(parsedString)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		}
		return false, false
	}
	var parsedFloat float64
	if errUnmarshal := json.Unmarshal(raw, &parsedFloat); errUnmarshal == nil {
		if parsedFloat == 1 {
			return true, true
		}
		if parsedFloat == 0 {
			return false, true
		}
	}
	return false, false
}

// StringValue returns a settings key parsed as a trimmed string.
func StringValue(key string) (string, bool) {
	raw, ok := DBConfigValue(key)
	if !ok {
		return "", false
	}
	var parsedString string
	if errUnmarshal := json.Unmarshal(bytes.TrimSpace(raw), &parsedString); errUnmarshal != nil {
		return "", false
	}
	return strings.TrimSpace(parsedString), true
}

// NonNegativeIntValue returns a settings key parsed as a non-negative integer.
func NonNegativeIntValue(key string) (int, bool) {
	raw, ok := DBConfigValue(key)
	if !ok {
		return 0, false
	}
	raw = bytes.TrimSpace(raw)
	var parsedInt int
	if errUnmarshal := json.Unmarshal(raw, &parsedInt); errUnmarshal == nil {
		return parsedInt, parsedInt >= 0
	}
	var parsedString string
	if errUnmarshal := json.Unmarshal(raw, &parsedString); errUnmarshal == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= 0
	}
	var parsedFloat float64
	if errUnmarshal := json.Unmarshal(raw, &parsedFloat); errUnmarshal == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		if parsedFloat < 0 || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}
