// Package http provides the REST surface for the smartdrive backend.
//
// Routes:
//
//	GET    /                  status message (public)
//	POST   /signup            register and log in (public)
//	POST   /login             log in (public)
//	POST   /upload            store a multipart file (bearer token)
//	GET    /files             list own files (bearer token)
//	DELETE /delete/{file_id}  delete an owned file (bearer token)
//	GET    /download/*        serve blobs for the filesystem backend (signed URL)
//
// Authentication is an explicit middleware stage: RequireAuth extracts the
// Authorization: Bearer token, verifies it, and binds the subject email to the
// request context, where handlers read it via SubjectFromContext. Errors are
// JSON {error, message} bodies mapped from the smartdrive sentinel errors.
package http
