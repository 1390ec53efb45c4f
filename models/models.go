package models

// Student is one roster row
type Student struct {
	StudentID int    `json:"studentId"` // Numeric student ID, not required to be unique
	Class     string `json:"class"`     // Class label as written in the source, e.g. "8I"
}

// StudentsResponse is the body of GET /api
type StudentsResponse struct {
	Students []Student `json:"students"`
}

// ClassesResponse is the body of GET /api/classes
type ClassesResponse struct {
	Classes []string `json:"classes"`
}
