package bigquery

import (
	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

func init() {
	dialect.Register(BigQuery)
}

// BigQuery is the BigQuery dialect.
var BigQuery = dialect.New(Config).Build()
