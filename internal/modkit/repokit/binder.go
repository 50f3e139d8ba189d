package repokit

// Binder binds a domain repo to a Queryer, usually the one of an open transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a repo constructor to Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f with q
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// RequireQueryer panics on a nil q
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}
