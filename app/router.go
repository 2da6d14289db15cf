package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/healthcheck", app.healthCheckHandler)

	router.HandlerFunc(http.MethodGet, "/", app.listBlogsHandler)
	router.HandlerFunc(http.MethodPost, "/sign-up", app.signUpHandler)
	router.HandlerFunc(http.MethodPost, "/sign-in", app.signInHandler)

	router.HandlerFunc(http.MethodPost, "/create-blog", app.requireAuthUser(app.createBlogHandler))
	router.HandlerFunc(http.MethodPost, "/save-blog", app.requireAuthUser(app.saveBlogHandler))
	router.HandlerFunc(http.MethodGet, "/user-details", app.requireAuthUser(app.userDetailsHandler))
	router.HandlerFunc(http.MethodGet, "/blog-details/:id", app.requireAuthUser(app.blogDetailsHandler))
	router.HandlerFunc(http.MethodPost, "/update-user", app.requireAuthUser(app.updateUserHandler))
	router.HandlerFunc(http.MethodPost, "/follow-user", app.requireAuthUser(app.followUserHandler))
	router.HandlerFunc(http.MethodGet, "/upload-url", app.requireAuthUser(app.uploadURLHandler))

	return app.recoverPanic(app.logRequest(app.enableCORS(app.rateLimit(app.authenticate(router)))))
}
