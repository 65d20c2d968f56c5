package nirasdk

// Asset is the subset of the asset record the client relies on.
type Asset struct {
	UUID      string `json:"uuid,omitempty"`
	ShortUUID string `json:"suuid"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	IsPublic  bool   `json:"isPublic,omitempty"`
}

// ListAssetsParams filters api/assets. Zero values are left out of the query.
type ListAssetsParams struct {
	Name string
	UUID string
}

func (p *ListAssetsParams) query() map[string]string {
	q := map[string]string{}
	if p == nil {
		return q
	}
	if p.Name != "" {
		q["name"] = p.Name
	}
	if p.UUID != "" {
		q["uuid"] = p.UUID
	}
	return q
}

type ShareAssetParams struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	ExpirationDate string `json:"expirationDate,omitempty"`
}

type setPublicParams struct {
	IsPublic bool `json:"isPublic"`
}
