package connector

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// MAX_REMOTE_IDS is the most ids one by-id import accepts.
const MAX_REMOTE_IDS = 50

var digits = regexp.MustCompile(`\d+`)

// ParseRemoteIDs extracts the numbers of a comma separated list typed by an operator.
func ParseRemoteIDs(s string) ([]int64, error) {
	var IDs []int64
	seen := map[int64]bool{}
	for _, part := range digits.FindAllString(s, -1) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid id %s", part)
		}
		if !seen[id] {
			seen[id] = true
			IDs = append(IDs, id)
		}
	}
	if len(IDs) == 0 {
		return nil, errors.New("Please enter the ids to import")
	}
	if len(IDs) > MAX_REMOTE_IDS {
		return nil, errors.Errorf("Please enter the Order ids %d or less", MAX_REMOTE_IDS)
	}
	return IDs, nil
}
