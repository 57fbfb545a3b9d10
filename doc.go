// Package smartdrive implements an authenticated file-storage backend: users
// sign up and log in with an email/password pair, receive a bearer token, and
// use it to upload files, list their own files, and delete files they own.
//
// # Key Components
//
//   - TokenService: issues and verifies signed, time-limited identity tokens
//   - Service: request orchestration over the three external collaborators
//   - AccountDirectory: email -> credential record store (DynamoDB, SQL, memory)
//   - FileCatalog: file id -> metadata store (DynamoDB, SQL, memory)
//   - ObjectStore: blob storage with time-limited retrieval URLs (S3, filesystem, memory)
//
// All collaborators are constructor-injected interfaces so they can be swapped
// for in-memory fakes in tests.
//
// # Example Usage
//
//	tokens := smartdrive.NewTokenService([]byte(secret), 2*time.Hour)
//	svc := smartdrive.NewService(accounts, catalog, blobs, tokens, smartdrive.ServiceConfig{})
//
//	session, err := svc.SignUp(ctx, "a@example.com", "password")
//	file, err := svc.Upload(ctx, session.Email, "report.txt", reader)
//
// See the http package for the REST surface and the dynamo, database, s3blob,
// filesystem, and memory packages for backend implementations.
package smartdrive
