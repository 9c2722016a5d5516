package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// RegisterAuthRoutes mounts the auth flows on the given router. The host
// application owns the surrounding group (typically `/auth`), templates and
// static assets.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.Confirm), controller.ConfirmAccount).
		SetName("confirm.get")

	app.Get(controller.Routes.PasswordReset, controller.PasswordResetGet).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.PasswordReset), controller.PasswordResetForm).
		SetName("pwd-reset-do.get")
	app.Post(fmt.Sprintf("%s/:token", controller.Routes.PasswordReset), controller.PasswordResetExecute).
		SetName("pwd-reset-do.post")
}

type AuthControllerRoutes struct {
	Login         string
	Logout        string
	Register      string
	Confirm       string
	PasswordReset string
}

type AuthControllerViews struct {
	Login          string
	Register       string
	ConfirmAccount string
	PasswordReset  string
	ResetPassword  string
	Message        string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Notifier     Notifier
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		Notifier:     noopNotifier{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:         "/login",
			Logout:        "/cerrar-sesion",
			Register:      "/registro",
			Confirm:       "/confirmar",
			PasswordReset: "/olvide-password",
		},
		Views: &AuthControllerViews{
			Login:          "auth/login",
			Register:       "auth/registro",
			ConfirmAccount: "auth/confirmar-cuenta",
			PasswordReset:  "auth/olvide-password",
			ResetPassword:  "auth/reset-password",
			Message:        "templates/mensaje",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func WithControllerRepository(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerNotifier(n Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = normalizeNotifier(n)
		return c
	}
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"pagina":  "Iniciar sesión",
		"errores": nil,
		"record":  nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Eso no parece un email"),
			is.Email.Error("Eso no parece un email"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Este espacio no puede ir vacio"),
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"pagina":     "Iniciar sesión",
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"pagina":  "Iniciar sesión",
			"record":  payload,
			"errores": []string{loginErrorMessage(err)},
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/mis-propiedades")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"pagina":  "Crear cuenta",
		"errores": map[string]string{},
		"usuario": RegistrationFormData{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	Nombre          string `form:"nombre" json:"nombre"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	RepetirPassword string `form:"repetir_password" json:"repetir_password"`
}

// RegistrationFormData is the slice of the payload the register view gets
// back on error. Passwords stay out of the template layer.
type RegistrationFormData struct {
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
}

// FormData returns the fields safe to echo back into the form
func (r RegistrationCreatePayload) FormData() RegistrationFormData {
	return RegistrationFormData{
		Nombre: r.Nombre,
		Email:  r.Email,
	}
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Nombre,
			validation.Required.Error("El nombre no puede ir vacio"),
		),
		validation.Field(
			&r.Email,
			validation.Required.Error("Eso no parece un email"),
			is.Email.Error("Eso no parece un email"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("El password debe ser de al menos 8 caracteres"),
			validation.Length(MinPasswordLength, 0).Error("El password debe ser de al menos 8 caracteres"),
		),
		validation.Field(
			&r.RepetirPassword,
			validation.Required.Error("Los passwords no son iguales"),
			validation.By(ValidateStringEquals(r.Password, "Los passwords no son iguales")),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"pagina":  "Crear cuenta",
			"errores": map[string]string{"form": "Failed to parse form"},
			"usuario": payload.FormData(),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: ", "error", err)
		return ctx.Render(a.Views.Register, router.ViewContext{
			"pagina":     "Crear cuenta",
			"usuario":    payload.FormData(),
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := RegisterUserMessage{
		Nombre:   payload.Nombre,
		Email:    payload.Email,
		Password: payload.Password,
	}

	registerUser := NewRegisterUserHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: ", "error", err)

		mensaje := "No pudimos crear tu cuenta, intenta de nuevo"
		if goerrors.Is(err, ErrEmailTaken) {
			mensaje = "El usuario ya está registrado"
		}

		return ctx.Render(a.Views.Register, router.ViewContext{
			"pagina":  "Crear cuenta",
			"usuario": payload.FormData(),
			"errores": []string{mensaje},
		})
	}

	return ctx.Render(a.Views.Message, router.ViewContext{
		"pagina":  "Cuenta creada correctamente",
		"mensaje": "Hemos enviado un email de confirmación, presiona en el enlace",
	})
}

// ConfirmAccount consumes the emailed confirmation token. A second visit
// with the same token renders the generic failure view.
func (a *AuthController) ConfirmAccount(ctx router.Context) error {
	token := ctx.Param("token", "")

	confirm := NewConfirmAccountHandler(a.Repo).WithLogger(a.Logger)

	if err := confirm.Execute(ctx.Context(), ConfirmAccountMessage{Token: token}); err != nil {
		a.Logger.Error("confirm account error: ", "error", err)
		return ctx.Render(a.Views.ConfirmAccount, router.ViewContext{
			"pagina":  "Error al confirmar tu cuenta",
			"mensaje": "Hubo un error al confirmar tu cuenta, intenta de nuevo",
			"error":   true,
		})
	}

	return ctx.Render(a.Views.ConfirmAccount, router.ViewContext{
		"pagina":  "Cuenta confirmada",
		"mensaje": "La cuenta se confirmó correctamente",
	})
}

func (a *AuthController) PasswordResetGet(ctx router.Context) error {
	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"pagina":  "Recupera tu acceso a Bienes Raices",
		"errores": nil,
	})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Eso no parece un email"),
			is.Email.Error("Eso no parece un email"),
		),
	)
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"pagina":  "Recupera tu acceso a Bienes Raices",
			"errores": map[string]string{"form": "Failed to parse form"},
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: ", "error", err)
		return ctx.Render(a.Views.PasswordReset, router.ViewContext{
			"pagina":     "Recupera tu acceso a Bienes Raices",
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: ", "error", err)
		return ctx.Render(a.Views.PasswordReset, router.ViewContext{
			"pagina":  "Recupera tu acceso a Bienes Raices",
			"record":  payload,
			"errores": []string{"El email no pertenece a ningún usuario"},
		})
	}

	if a.Debug {
		a.Logger.Debug("password reset response: %s", print.MaybePrettyJSON(res))
	}

	return ctx.Render(a.Views.Message, router.ViewContext{
		"pagina":  "Reestablece tu contraseña",
		"mensaje": "Hemos enviado un email con las instrucciones",
	})
}

// PasswordResetForm shows the new-password form after checking the token
// is still pending. No side effect: the token stays valid.
func (a *AuthController) PasswordResetForm(ctx router.Context) error {
	token := ctx.Param("token", "")

	verify := NewVerifyResetTokenHandler(a.Repo)

	if err := verify.Execute(ctx.Context(), VerifyResetTokenMessage{Token: token}); err != nil {
		a.Logger.Error("verify reset token error: ", "error", err)
		return ctx.Render(a.Views.ConfirmAccount, router.ViewContext{
			"pagina":  "Reestablece tu password",
			"mensaje": "Hubo un error al validar tu información, intenta de nuevo",
			"error":   true,
		})
	}

	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"pagina": "Reestablece tu contraseña",
	})
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required.Error("El password debe ser de al menos 8 caracteres"),
			validation.Length(MinPasswordLength, 0).Error("El password debe ser de al menos 8 caracteres"),
		),
	)
}

func (a *AuthController) PasswordResetExecute(ctx router.Context) error {
	token := ctx.Param("token", "")

	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResetPassword, router.ViewContext{
			"pagina":  "Reestablece tu contraseña",
			"errores": map[string]string{"form": "Failed to parse form"},
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: ", "error", err)
		return ctx.Render(a.Views.ResetPassword, router.ViewContext{
			"pagina":     "Reestablece tu contraseña",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	input := FinalizePasswordResetMessage{
		Token:    token,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo).WithLogger(a.Logger)

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("password reset finalize error: ", "error", err)
		return ctx.Render(a.Views.ConfirmAccount, router.ViewContext{
			"pagina":  "Reestablece tu password",
			"mensaje": "Hubo un error al validar tu información, intenta de nuevo",
			"error":   true,
		})
	}

	return ctx.Render(a.Views.ConfirmAccount, router.ViewContext{
		"pagina":  "Password reestablecido",
		"mensaje": "El password se guardó correctamente",
	})
}

func loginErrorMessage(err error) string {
	switch {
	case goerrors.Is(err, ErrAccountNotConfirmed):
		return "Tu cuenta no ha sido confirmada"
	case goerrors.Is(err, ErrMismatchedHashAndPassword):
		return "El password es incorrecto"
	case goerrors.Is(err, ErrIdentityNotFound):
		return "El usuario no existe"
	default:
		return "Error de autenticación"
	}
}

// ValidateStringEquals will check that both values match. The message is
// returned verbatim so the form can echo it per field.
func ValidateStringEquals(str, msg string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(msg)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for form repopulation
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
