package models

// StdinInput carries the piped stdin contents attached to a Question.
type StdinInput struct {
	Stdin string `json:"stdin"`
}

// AttachmentInput carries a file attachment already read into memory by the
// client.
type AttachmentInput struct {
	Contents string `json:"contents"`
	Mimetype string `json:"mimetype"`
}

// Question is the argument shape for ChatService.AskQuestion.
type Question struct {
	Message    string          `json:"message"`
	Stdin      StdinInput      `json:"stdin"`
	Attachment AttachmentInput `json:"attachment"`
}

// Response is the return shape for ChatService.AskQuestion.
type Response struct {
	Message string `json:"message"`
}
