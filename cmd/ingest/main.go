// Command ingest runs CSV ingest pipelines described by a pipeline file,
// lints pipeline files, and queries intraday volume profiles.
//
//	ingest run -c pipelines/customers.yaml --workers 8
//	ingest validate -c pipelines/customers.yaml
//	ingest profile --file 0700_HK.csv --default HK.csv --from 09:30 --to 11:30 --at 10:15
package main

import (
	"os"

	// register all backends with the storage factory.
	// the pipeline file picks one, but every one of them is built in.
	_ "csvingest/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
