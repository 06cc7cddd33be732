package utils

import "fmt"

// ToStringSlice converts every element to its string form. Strings are kept
// as they are, nil becomes "null" and anything else goes through fmt.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		switch s := v.(type) {
		case string:
			stringSlice = append(stringSlice, s)
		case nil:
			stringSlice = append(stringSlice, "null")
		default:
			stringSlice = append(stringSlice, fmt.Sprint(s))
		}
	}
	return stringSlice
}
