package util

import (
	"math"
	"strconv"
	"time"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with binary (1024-based) units and
// at most two decimal places, trailing zeros trimmed. Part of the library
// rendering contract: "1536" displays as "1.5 KB", zero as "0 Bytes".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}

// FormatDate renders a creation timestamp with an abbreviated month,
// e.g. "Mar 5, 2026".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
