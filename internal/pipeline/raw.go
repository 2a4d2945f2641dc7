package pipeline

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jonathan/forgecv/internal/types"
)

const excludedItemsKey = "excluded_items"

// detachExclusions splits the model's excluded_items object off the raw tailored document. The
// returned body no longer carries the key. A malformed excluded_items value yields no exclusions.
func detachExclusions(raw []byte) (types.RawExclusions, []byte, error) {
	res := gjson.GetBytes(raw, excludedItemsKey)
	if !res.Exists() {
		return types.RawExclusions{}, raw, nil
	}
	body, err := sjson.DeleteBytes(raw, excludedItemsKey)
	if err != nil {
		return nil, nil, err
	}

	out := types.RawExclusions{}
	if !res.IsObject() {
		return out, body, nil
	}
	res.ForEach(func(section, list gjson.Result) bool {
		if !list.IsArray() {
			return true
		}
		for _, v := range list.Array() {
			var ref types.ItemRef
			if err := json.Unmarshal([]byte(v.Raw), &ref); err != nil {
				continue
			}
			out[section.String()] = append(out[section.String()], ref)
		}
		return true
	})
	return out, body, nil
}
