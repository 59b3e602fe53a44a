package client

import "encoding/json"

// Decoder turns a raw response body into a value. It must be pure so the
// retrier can call it once per attempt.
type Decoder[T any] func(body []byte) (T, error)

// JSONDecoder decodes JSON bodies into T, wrapping failures as *DecodeError.
func JSONDecoder[T any]() Decoder[T] {
	return func(body []byte) (T, error) {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return *new(T), &DecodeError{Size: len(body), Err: err}
		}
		return v, nil
	}
}
