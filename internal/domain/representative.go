package domain

import "time"

type Representative struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RepresentativeRef points at a Representative the user does not own.
// The zero value means "no representative assigned".
type RepresentativeRef struct {
	id string
}

// RefTo builds a reference from a loaded representative.
func RefTo(rep *Representative) RepresentativeRef {
	if rep == nil {
		return RepresentativeRef{}
	}
	return RepresentativeRef{id: rep.ID}
}

// RestoreRepresentativeRef is for storage adapters rehydrating a saved reference.
func RestoreRepresentativeRef(id string) RepresentativeRef {
	return RepresentativeRef{id: id}
}

func (r RepresentativeRef) ID() string { return r.id }

func (r RepresentativeRef) IsSet() bool { return r.id != "" }

// DefaultRepresentatives is the roster inserted by the seed operation.
func DefaultRepresentatives() []Representative {
	return []Representative{
		{Name: "Alex Morgan", Phone: "+1 (212) 555-0141", Email: "alex.morgan@memberportal.example"},
		{Name: "Jordan Reyes", Phone: "+1 (312) 555-0187", Email: "jordan.reyes@memberportal.example"},
		{Name: "Priya Natarajan", Phone: "+1 (303) 555-0112", Email: "priya.natarajan@memberportal.example"},
		{Name: "Samuel Okafor", Phone: "+1 (415) 555-0169", Email: "samuel.okafor@memberportal.example"},
		{Name: "Taylor Brooks", Phone: "+1 (602) 555-0195", Email: "taylor.brooks@memberportal.example"},
	}
}
