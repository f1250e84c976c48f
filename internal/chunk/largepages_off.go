//go:build !largepages

package chunk

// useLargePages is toggled by the largepages build tag.
const useLargePages = false
