/*
Package backend implements the REST surface of the service on top of the SQL
query layer.

All routes live under /api/v1:

	POST   /auth/login       form username and password, returns an access token
	GET    /auth/users/me    the claims of the bearer token
	POST   /users            create a user, the password gets hashed
	GET    /users            one page of users, parameters page and elements
	GET    /users/{id}       read a user
	PUT    /users/{id}       replace username and password of a user
	DELETE /users/{id}       delete a user
	GET    /healthcheck      returns OK
	GET    /healthcheck-db   returns the database time

Every response carries CORS and security headers. Create, update and delete send a
notification for resource "user" to the configured notifier.
*/
package backend
