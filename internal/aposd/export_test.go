package aposd

// CountNonEmptyLines is exported for testing. See countNonEmptyLines.
func CountNonEmptyLines(src []byte) int {
	return countNonEmptyLines(src)
}
