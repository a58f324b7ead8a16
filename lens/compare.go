package lens

// Compare orders two strings byte by byte with length as the final
// tiebreaker. It returns a negative value if a sorts before b, zero if the
// strings are equal and a positive value otherwise.
func Compare(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}
