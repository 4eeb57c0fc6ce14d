package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm prints the test-mode warning and asks whether to go on. Only the line "yes",
// in any case, confirms; surrounding spaces decline. End of input declines.
func Confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprintln(out, "Testing migration on backup database...")
	fmt.Fprintln(out, "Warning: This script uses the main database. Create a backup first!")
	fmt.Fprint(out, "Continue with migration? (yes/no): ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(out)
		return false
	}
	return strings.EqualFold(strings.TrimRight(answer, "\r\n"), "yes")
}
