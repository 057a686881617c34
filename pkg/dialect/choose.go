package dialect

import "github.com/leapstack-labs/leapseries/pkg/core"

// Choose runs the branch for d's kind. It is the single place dialect
// behaviour forks: a nil dialect or a kind without a branch yields a
// *core.DatabaseNotSupportedError naming the dialect.
func Choose[T any](d *Dialect, postgres, bigquery func() (T, error)) (T, error) {
	var zero T
	if d == nil {
		return zero, &core.DatabaseNotSupportedError{}
	}
	switch d.Kind {
	case core.KindPostgres:
		return postgres()
	case core.KindBigQuery:
		return bigquery()
	default:
		return zero, &core.DatabaseNotSupportedError{Dialect: d.Name}
	}
}

// Pick is Choose for branches that are plain values.
func Pick[T any](d *Dialect, postgres, bigquery T) (T, error) {
	return Choose(d,
		func() (T, error) { return postgres, nil },
		func() (T, error) { return bigquery, nil },
	)
}

// Supported reports whether d has a kind every Choose call can handle.
func Supported(d *Dialect) error {
	_, err := Pick(d, struct{}{}, struct{}{})
	return err
}
