package domain

import "context"

// PersonaProfile conditions the model's voice. Profiles are owned by the
// persona-management surface; the pipeline only reads them.
//
// Description is used verbatim as the structural prefix of every reply.
// Instructions is the role/backstory block, Seed the example-dialogue block.
// DocumentHandle references the grounding document at the retrieval backend;
// when empty, retrieval is disabled for this persona.
type PersonaProfile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Instructions   string `json:"instructions"`
	Seed           string `json:"seed"`
	DocumentHandle string `json:"document_handle"`
}

// PersonaStore is read-only access to persona profiles.
type PersonaStore interface {
	// GetPersona returns ErrPersonaNotFound when no profile exists for id.
	GetPersona(ctx context.Context, id string) (PersonaProfile, error)
}
