package i18n

// Ключи сообщений, на которые ссылается код.
const (
	MsgRowFull          = "builder.row_full"
	MsgFormSaved        = "builder.saved"
	MsgSaveFailed       = "builder.save_failed"
	MsgSaving           = "builder.saving"
	MsgLoading          = "builder.loading"
	MsgFormInvalid      = "builder.invalid"
	MsgFieldsLoadFailed = "builder.load_failed"
	MsgRowNotFound      = "builder.row_not_found"
	MsgFieldNotFound    = "builder.field_not_found"
	MsgNoSelection      = "builder.no_selection"
	MsgTemplateUnknown  = "builder.template_unknown"
	MsgGroupTemplate    = "builder.group_template"
	MsgIndexOutOfRange  = "builder.index_out_of_range"

	MsgEventLoadFailed   = "event.load_failed"
	MsgEventNotFound     = "event.not_found"
	MsgEventActivated    = "event.activated"
	MsgEventDeactivated  = "event.deactivated"
	MsgEventStatusFailed = "event.status_failed"
	MsgEventUpdateFailed = "event.update_failed"
	MsgEventDeleteFailed = "event.delete_failed"

	MsgRegistrationConfirmed = "registration.confirmed"
	MsgRegistrationCancelled = "registration.cancelled"

	MsgTroopExists             = "troop.exists"
	MsgTroopCreateFailed       = "troop.create_failed"
	MsgFoodAllergyExists       = "food_allergy.exists"
	MsgFoodAllergyCreateFailed = "food_allergy.create_failed"
	MsgParticipantLoadFailed   = "participant.load_failed"
	MsgUserLoadFailed          = "user.load_failed"
	MsgUserCreateFailed        = "user.create_failed"
	MsgUserUpdateFailed        = "user.update_failed"

	MsgLoginFailed            = "auth.login_failed"
	MsgLoginRequired          = "auth.login_required"
	MsgAlreadyAuthenticated   = "auth.already_authenticated"
	MsgForbidden              = "auth.forbidden"
	MsgPasswordChangeRequired = "auth.password_change_required"
	MsgPasswordChanged        = "auth.password_changed"
	MsgPasswordChangeFailed   = "auth.password_change_failed"
	MsgExportFailed           = "export.failed"
	MsgCatalogReloaded        = "catalog.reloaded"
	MsgCatalogInvalid         = "catalog.invalid"

	MsgUnexpected = "error.unexpected"
	MsgBadRequest = "error.bad_request"
	MsgNotFound   = "error.not_found"
	MsgConflict   = "error.conflict"
	MsgServer     = "error.server"

	MsgRequired       = "validation.required"
	MsgTooLong        = "validation.too_long"
	MsgPattern        = "validation.pattern"
	MsgEmail          = "validation.email"
	MsgEmailMismatch  = "validation.email_mismatch"
	MsgPhone          = "validation.phone"
	MsgPersonalNumber = "validation.personal_number"
	MsgNumber         = "validation.number"
	MsgDate           = "validation.date"
	MsgOption         = "validation.option"
	MsgDateOrder      = "validation.date_order"
)
