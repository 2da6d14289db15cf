package main

import (
	"net/http"
	"strings"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
	"github.com/sushihentaime/blogshelf/internal/userservice"
)

func (app *application) listBlogsHandler(w http.ResponseWriter, r *http.Request) {
	blogs, err := app.blogService.GetBlogs(r.Context())
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "Successfully fetched the blogs from database", envelope{"blogs": blogs})
}

type signUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (app *application) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req userservice.CreateUserRequest

	if isMultipart(r) {
		if err := app.parseMultipart(w, r); err != nil {
			app.readBodyError(w, r, err)
			return
		}

		avatar, err := app.readFile(r, "avatar")
		if err != nil {
			app.readBodyError(w, r, err)
			return
		}

		req = userservice.CreateUserRequest{
			Name:            r.FormValue("name"),
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
			Avatar:          avatar,
		}
	} else {
		var input signUpRequest
		if err := app.parseJSON(w, r, &input); err != nil {
			app.readBodyError(w, r, err)
			return
		}

		req = userservice.CreateUserRequest{
			Name:            input.Name,
			Email:           input.Email,
			Password:        input.Password,
			ConfirmPassword: input.ConfirmPassword,
		}
	}

	user, err := app.userService.CreateUser(r.Context(), &req)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "User Created Successfully", envelope{"user": user})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) signInHandler(w http.ResponseWriter, r *http.Request) {
	var input signInRequest

	if err := app.parseJSON(w, r, &input); err != nil {
		app.readBodyError(w, r, err)
		return
	}

	token, user, err := app.userService.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "User signed in successfully", envelope{
		"token":  token.Token,
		"expiry": token.Expiry,
		"user":   user,
	})
}

type createBlogRequest struct {
	Title       string `json:"title"`
	Brief       string `json:"brief"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Estimated   int    `json:"estimated"`
}

func (app *application) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	user := contextGetUser(r)
	req := blogservice.CreateBlogRequest{UserID: user.ID}

	if isMultipart(r) {
		if err := app.parseMultipart(w, r); err != nil {
			app.readBodyError(w, r, err)
			return
		}

		estimated, err := formInt(r, "estimated")
		if err != nil {
			app.failedValidationResponse(w, r, map[string]string{"estimated": "must be an integer"})
			return
		}

		image, err := app.readFile(r, "image")
		if err != nil {
			app.readBodyError(w, r, err)
			return
		}

		req.Title = r.FormValue("title")
		req.Brief = r.FormValue("brief")
		req.Description = r.FormValue("description")
		req.Category = r.FormValue("category")
		req.Estimated = estimated
		req.Image = image
	} else {
		var input createBlogRequest
		if err := app.parseJSON(w, r, &input); err != nil {
			app.readBodyError(w, r, err)
			return
		}

		req.Title = input.Title
		req.Brief = input.Brief
		req.Description = input.Description
		req.Category = input.Category
		req.Estimated = input.Estimated
	}

	result, err := app.blogService.CreateBlog(r.Context(), &req)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "Blog created successfully", envelope{
		"blog":        result.Blog,
		"postedBlogs": result.PostedBlogs,
	})
}

type saveBlogRequest struct {
	BlogID string `json:"blogId"`
}

func (app *application) saveBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input saveBlogRequest

	if err := app.parseJSON(w, r, &input); err != nil {
		app.readBodyError(w, r, err)
		return
	}

	user := contextGetUser(r)

	saved, err := app.blogService.SaveBlog(r.Context(), user.ID, input.BlogID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "Blog Saved in list successfully", envelope{"savedBlogs": saved})
}

func (app *application) userDetailsHandler(w http.ResponseWriter, r *http.Request) {
	user := contextGetUser(r)

	details, err := app.userService.GetUserDetails(r.Context(), user.ID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "User data is fetched successfully from db", envelope{"user": details})
}

func (app *application) blogDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readIDParam(r, "id")

	blog, err := app.blogService.GetBlogByID(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "Blog fetched successfully", envelope{"blog": blog})
}

type updateUserRequest struct {
	Name      *string  `json:"name"`
	Interests []string `json:"interests"`
}

func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	user := contextGetUser(r)
	req := userservice.UpdateProfileRequest{UserID: user.ID}

	if isMultipart(r) {
		if err := app.parseMultipart(w, r); err != nil {
			app.readBodyError(w, r, err)
			return
		}

		avatar, err := app.readFile(r, "avatar")
		if err != nil {
			app.readBodyError(w, r, err)
			return
		}

		if names, ok := r.MultipartForm.Value["name"]; ok && len(names) > 0 {
			req.Name = &names[0]
		}
		req.Interests = formList(r, "interests")
		req.Avatar = avatar
	} else {
		var input updateUserRequest
		if err := app.parseJSON(w, r, &input); err != nil {
			app.readBodyError(w, r, err)
			return
		}

		req.Name = input.Name
		req.Interests = input.Interests
	}

	updated, err := app.userService.UpdateProfile(r.Context(), &req)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "User updated successfully", envelope{"user": updated})
}

type followUserRequest struct {
	UserID string `json:"userId"`
}

func (app *application) followUserHandler(w http.ResponseWriter, r *http.Request) {
	var input followUserRequest

	if err := app.parseJSON(w, r, &input); err != nil {
		app.readBodyError(w, r, err)
		return
	}

	user := contextGetUser(r)

	updated, err := app.userService.Follow(r.Context(), user.ID, input.UserID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "User followed successfully", envelope{"user": updated})
}

// uploadURLHandler presigns a PUT so the client can upload an image straight to the bucket.
// The optional type query parameter selects the content type, image/jpeg by default.
func (app *application) uploadURLHandler(w http.ResponseWriter, r *http.Request) {
	contentType := strings.TrimSpace(r.URL.Query().Get("type"))
	if contentType == "" {
		contentType = "image/jpeg"
	}

	ext, ok := mediaservice.ExtensionFor(contentType)
	if !ok {
		app.failedValidationResponse(w, r, map[string]string{"type": "must be one of image/jpeg, image/png, image/gif, image/webp"})
		return
	}

	user := contextGetUser(r)

	ref, err := app.mediaService.UploadURL(r.Context(), user.ID, ext)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.success(w, r, "Upload URL created successfully", envelope{
		"key":         ref.Key,
		"url":         ref.URL,
		"expiresAt":   ref.ExpiresAt,
		"contentType": contentType,
	})
}
