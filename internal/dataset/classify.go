package dataset

// Role is the analysis role of a column.
type Role string

const (
	RoleNumeric     Role = "numeric"
	RoleCategorical Role = "categorical"
)

// Roles partitions a dataset's columns. Every column appears in exactly one
// of Numeric or Categorical, in file order.
type Roles struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	byName      map[string]Role
}

// Classify assigns each column its role: numeric iff every non-missing cell
// parsed as a number at load time, categorical otherwise. A column with no
// values at all counts as numeric.
func Classify(ds *Dataset) Roles {
	r := Roles{
		Numeric:     []string{},
		Categorical: []string{},
		byName:      make(map[string]Role, ds.NumColumns()),
	}
	for _, c := range ds.columns {
		if c.numeric {
			r.Numeric = append(r.Numeric, c.name)
			r.byName[c.name] = RoleNumeric
		} else {
			r.Categorical = append(r.Categorical, c.name)
			r.byName[c.name] = RoleCategorical
		}
	}
	return r
}

// Of returns the role of column name.
func (r Roles) Of(name string) (Role, bool) {
	role, ok := r.byName[name]
	return role, ok
}

// IsNumeric reports whether name is a numeric column.
func (r Roles) IsNumeric(name string) bool { return r.byName[name] == RoleNumeric }

// IsCategorical reports whether name is a categorical column.
func (r Roles) IsCategorical(name string) bool { return r.byName[name] == RoleCategorical }
