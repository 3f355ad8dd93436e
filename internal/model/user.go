package model

type User struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	Roles            []Role `json:"roles"`
	TenantID         string `json:"tenantId,omitempty"`
	ManagingLeagueID string `json:"managingLeagueId,omitempty"`
	ManagingTeamID   string `json:"managingTeamId,omitempty"`
}

func (u *User) HasAnyRole(allowed ...Role) bool {
	if u == nil {
		return false
	}

	for _, want := range allowed {
		for _, have := range u.Roles {
			if want == have {
				return true
			}
		}
	}

	return false
}

func (u *User) PrimaryRole() Role {
	if u == nil {
		return ""
	}

	return PrimaryRole(u.Roles)
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	out := *u
	out.Roles = append([]Role(nil), u.Roles...)
	return &out
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (t *TokenPair) Clone() *TokenPair {
	if t == nil {
		return nil
	}

	out := *t
	return &out
}
