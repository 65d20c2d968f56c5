package utils

// MaskSecret keeps the first four characters of s so a key can be recognised in logs.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
