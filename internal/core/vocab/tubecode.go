package vocab

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Freezer boxes hold 8 rows (A-H) of 12 tubes each.
const (
	boxRows    = "ABCDEFGH"
	boxColumns = 12
)

var gridCodePattern = regexp.MustCompile(`^([A-H])(\d{1,2})$`)

// ConvertTubeCode translates a raw tube label into its flat tube number.
// Accepted forms are a bare positive integer ("103") or a freezer-box grid
// position: row letter A-H followed by a column 1-12 ("B07" -> 19). Any other
// input is untranslatable and returns an error.
func ConvertTubeCode(raw string) (int, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return 0, fmt.Errorf("was not able to translate %q into a tube number", raw)
	}

	if n, err := strconv.Atoi(code); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("was not able to translate %q into a tube number", raw)
		}
		return n, nil
	}

	m := gridCodePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, fmt.Errorf("was not able to translate %q into a tube number", raw)
	}

	row := strings.IndexByte(boxRows, m[1][0])
	col, err := strconv.Atoi(m[2])
	if err != nil || col < 1 || col > boxColumns {
		return 0, fmt.Errorf("was not able to translate %q into a tube number", raw)
	}

	return row*boxColumns + col, nil
}
