package slices

// Map applies mapper to each element of sli and collects the results,
// keeping order.
func Map[T any, R any](sli []T, mapper func(T) R) []R {
	ret := make([]R, len(sli))
	for i, v := range sli {
		ret[i] = mapper(v)
	}
	return ret
}

// Concat joins slices into one, keeping order.
func Concat[T any](slis ...[]T) []T {
	ret := []T{}
	for _, s := range slis {
		ret = append(ret, s...)
	}
	return ret
}
