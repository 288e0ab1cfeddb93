// Command windspeed runs offline predictions and artifact checks against a
// model file without starting the service.
//
// Usage:
//
//	windspeed predict --model models/tornado_svm_model_export.json readings.json
//	windspeed inspect --model models/random_forest.json --info ""
//	windspeed verify  --fixtures fixtures.json
//	windspeed fixtures --out fixtures.json inputs.json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
