/*
Package ordering sorts entities by property paths named at runtime.

Each clause names a dot-separated path through exported struct fields and a
direction. Paths are compiled once per type into reflect index chains and cached,
so sorting does no name lookups:

	sorter, err := ordering.Compile[Employee](
	    ordering.Asc("Address.City"),
	    ordering.Desc("HiredAt"),
	)
	if err != nil {
	    return err
	}
	sorter.Sort(employees)

Strings, integers, floats, bools and time values (including types convertible to
time.Time such as strfmt.DateTime) can be ordered. Sorting is stable.

A clause with an empty property ends the list: it and every clause after it are
ignored. Use Effective to find out whether that happened.
*/
package ordering
