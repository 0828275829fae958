package models

// Project is the unit of collaboration. The four membership lists are
// list-valued indexed fields: owners/collaborators hold registered user keys,
// the unregistered_* lists hold raw emails of members without an account yet.
//
// Invariant: owners never becomes empty. The membership mutator enforces it;
// nothing at the storage layer does.
type Project struct {
	Key                       string   `bson:"key" json:"key"`
	Name                      string   `bson:"name" json:"name"`
	Desc                      string   `bson:"desc" json:"desc,omitempty"`
	Owners                    []string `bson:"owners" json:"owners,omitempty"`
	Collaborators             []string `bson:"collaborators" json:"collaborators,omitempty"`
	UnregisteredOwners        []string `bson:"unregistered_owners" json:"unregistered_owners,omitempty"`
	UnregisteredCollaborators []string `bson:"unregistered_collaborators" json:"unregistered_collaborators,omitempty"`
}

// ClientView serializes the project for non-owners: membership lists are
// restricted. Owners receive FullView instead.
func (p *Project) ClientView() map[string]interface{} {
	return map[string]interface{}{
		"key":  p.Key,
		"name": p.Name,
		"desc": p.Desc,
	}
}

// FullView serializes the project including all four membership lists.
func (p *Project) FullView() map[string]interface{} {
	return map[string]interface{}{
		"key":                        p.Key,
		"name":                       p.Name,
		"desc":                       p.Desc,
		"owners":                     p.Owners,
		"collaborators":              p.Collaborators,
		"unregistered_owners":        p.UnregisteredOwners,
		"unregistered_collaborators": p.UnregisteredCollaborators,
	}
}
