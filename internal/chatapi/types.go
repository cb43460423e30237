package chatapi

// Request is the only outbound payload shape
type Request struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
}

// Reference is a titled link attached to a response
type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Response is the success payload of POST /chat
type Response struct {
	Response  string      `json:"response"`
	Metadata  []Reference `json:"metadata,omitempty"`
	SessionID string      `json:"session_id,omitempty"` // echoed by the backend
}

// ErrorBody is the payload of 429 (and other backend) error responses
type ErrorBody struct {
	Detail string `json:"detail,omitempty"`
}

// LinkedReferences returns the references that carry a URL, in order
func (r *Response) LinkedReferences() []Reference {
	var refs []Reference
	for _, ref := range r.Metadata {
		if ref.URL != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}
