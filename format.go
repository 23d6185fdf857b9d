/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strconv"
)

func humanReadableSize(bytes int64) string {
	const unit = 1000

	if bytes < unit {
		return strconv.FormatInt(bytes, 10) + " B"
	}

	size := float64(bytes)
	prefixes := "kMGTPE"

	i := -1
	for size >= unit && i < len(prefixes)-1 {
		size /= unit
		i++
	}

	return fmt.Sprintf("%.1f %cB", size, prefixes[i])
}

// slotLabel is the 1-based number participants see for a slot.
func slotLabel(index int) string {
	return "#" + strconv.Itoa(index+1)
}
