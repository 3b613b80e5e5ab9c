package model

// AssociationGroup describes one association group on a node.
type AssociationGroup struct {
	MaxNodes       int
	IsLifeline     bool
	MultiChannel   bool
	Label          string
	Profile        int
	HasProfile     bool
	IssuedCommands map[string]any
}

// AssociationAddress identifies an association target: a node, optionally
// narrowed to one of its endpoints.
type AssociationAddress struct {
	NodeID   int
	Endpoint *int
}

func (a AssociationAddress) payload() map[string]any {
	data := map[string]any{"nodeId": a.NodeID}
	if a.Endpoint != nil {
		data["endpoint"] = *a.Endpoint
	}
	return data
}
