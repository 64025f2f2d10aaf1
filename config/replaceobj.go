package config

// ReplaceObjects traverses config and replaces every object that has a
// string property '$' + key with the value returned from replacement(obj).
// Replacements are not traversed again.
//
// This is useful when implementing TransformationProviders.
func ReplaceObjects(
	config map[string]interface{},
	key string,
	replacement func(obj map[string]interface{}) (interface{}, error),
) error {
	for k, v := range config {
		result, err := replaceValue(v, "$"+key, replacement)
		if err != nil {
			return err
		}
		config[k] = result
	}
	return nil
}

func replaceValue(
	val interface{},
	property string,
	replacement func(obj map[string]interface{}) (interface{}, error),
) (interface{}, error) {
	switch val := val.(type) {
	case []interface{}:
		for i, v := range val {
			result, err := replaceValue(v, property, replacement)
			if err != nil {
				return nil, err
			}
			val[i] = result
		}
	case map[string]interface{}:
		if _, ok := val[property].(string); ok {
			return replacement(val)
		}
		for k, v := range val {
			result, err := replaceValue(v, property, replacement)
			if err != nil {
				return nil, err
			}
			val[k] = result
		}
	}
	return val, nil
}
