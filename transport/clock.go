package transport

import "time"

// nowFunc is substituted in tests that need to control elapsed time
// without sleeping. Any monotonic-safe clock source is acceptable here.
var nowFunc = time.Now
