package caller

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Params are the query parameters of an upstream call.
type Params map[string]any

// Key returns the API cache key for an endpoint and its parameters.
// Parameter order never changes the key: maps marshal with sorted keys.
func Key(endpoint string, params Params) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Values JSON cannot encode still hash deterministically through fmt,
		// which also prints maps in key order.
		data = []byte(fmt.Sprint(map[string]any(params)))
	}
	return "api:" + endpoint + ":" + strconv.FormatUint(xxhash.Sum64(data), 16)
}

// query renders params as URL query values.
func (p Params) query() map[string]string {
	if len(p) == 0 {
		return nil
	}
	q := make(map[string]string, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case string:
			q[k] = val
		case nil:
			q[k] = ""
		default:
			q[k] = fmt.Sprint(val)
		}
	}
	return q
}
