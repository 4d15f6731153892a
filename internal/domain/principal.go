package domain

// Principal is the authenticated caller, resolved once per request from the token
// subject and the stored role. LawyerID is the lawyer profile id and is zero for customers.
type Principal struct {
	UserID   uint
	Email    string
	Role     string
	LawyerID uint
	Approved bool
}

func (p Principal) IsCustomer() bool { return p.Role == RoleCustomer }
func (p Principal) IsLawyer() bool   { return p.Role == RoleLawyer && p.LawyerID != 0 }

// IsApprovedLawyer reports whether the caller may act as a lawyer (answer questions, subscribe).
func (p Principal) IsApprovedLawyer() bool { return p.IsLawyer() && p.Approved }
