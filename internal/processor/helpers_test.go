package processor

import "time"

var testTime = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
