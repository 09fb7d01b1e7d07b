package output

import (
	"encoding/json"

	"github.com/finsight/finsight/internal/stocks"
)

func seriesJSON(series *stocks.Series) (string, error) {
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func adviceJSON(advice Advice) (string, error) {
	data, err := json.MarshalIndent(advice, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
