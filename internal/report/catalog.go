package report

// DefaultRegistry wires the full reportable schema graph. Registration
// order is the order multi-entity "all" reports render in.
func DefaultRegistry() *Registry {
	return NewRegistry(
		usersEntity(),
		rolesEntity(),
		permissionsEntity(),
		rolePermissionsEntity(),
		environmentsEntity(),
		questionTypesEntity(),
		questionsEntity(),
		answersEntity(),
		formsEntity(),
		formQuestionsEntity(),
		formAnswersEntity(),
		formSubmissionsEntity(),
		attachmentsEntity(),
	)
}

func auditFields() []Field {
	return []Field{
		{Name: "created_at", Column: "created_at", Kind: KindTime},
		{Name: "updated_at", Column: "updated_at", Kind: KindTime},
		{Name: "is_deleted", Column: "is_deleted", Kind: KindBool},
		{Name: "deleted_at", Column: "deleted_at", Kind: KindTime},
	}
}

func usersEntity() *Entity {
	return &Entity{
		Name:       "users",
		Table:      "users",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "username", Column: "username", Kind: KindString},
			{Name: "first_name", Column: "first_name", Kind: KindString},
			{Name: "last_name", Column: "last_name", Kind: KindString},
			{Name: "email", Column: "email", Kind: KindString},
			{Name: "contact_number", Column: "contact_number", Kind: KindString},
			{Name: "password_hash", Column: "password_hash", Kind: KindString, Hidden: true},
			{Name: "role_id", Column: "role_id", Kind: KindInt},
			{Name: "environment_id", Column: "environment_id", Kind: KindInt},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "role", Target: "roles", LocalColumn: "role_id", ForeignColumn: "id"},
			{Name: "environment", Target: "environments", LocalColumn: "environment_id", ForeignColumn: "id"},
		},
		DefaultColumns: []string{
			"id", "username", "first_name", "last_name", "email",
			"role.name", "environment.name", "created_at",
		},
		AvailableColumns: []string{
			"id", "username", "first_name", "last_name", "email",
			"contact_number", "role.name", "role.is_super_user",
			"environment.name", "created_at", "updated_at",
		},
		DefaultSort: []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func rolesEntity() *Entity {
	return &Entity{
		Name:       "roles",
		Table:      "roles",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "name", Column: "name", Kind: KindString},
			{Name: "description", Column: "description", Kind: KindString},
			{Name: "is_super_user", Column: "is_super_user", Kind: KindBool},
		}, auditFields()...),
		DefaultColumns:   []string{"id", "name", "description", "is_super_user", "created_at"},
		AvailableColumns: []string{"id", "name", "description", "is_super_user", "created_at", "updated_at"},
		DefaultSort:      []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func permissionsEntity() *Entity {
	return &Entity{
		Name:       "permissions",
		Table:      "permissions",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "name", Column: "name", Kind: KindString},
			{Name: "action", Column: "action", Kind: KindString},
			{Name: "entity", Column: "entity", Kind: KindString},
			{Name: "description", Column: "description", Kind: KindString},
		}, auditFields()...),
		DefaultColumns:   []string{"id", "name", "action", "entity", "description"},
		AvailableColumns: []string{"id", "name", "action", "entity", "description", "created_at", "updated_at"},
		DefaultSort:      []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func rolePermissionsEntity() *Entity {
	return &Entity{
		Name:       "role_permissions",
		Table:      "role_permissions",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "role_id", Column: "role_id", Kind: KindInt},
			{Name: "permission_id", Column: "permission_id", Kind: KindInt},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "role", Target: "roles", LocalColumn: "role_id", ForeignColumn: "id"},
			{Name: "permission", Target: "permissions", LocalColumn: "permission_id", ForeignColumn: "id"},
		},
		DefaultColumns: []string{"id", "role.name", "permission.name", "permission.action", "permission.entity"},
		AvailableColumns: []string{
			"id", "role.name", "permission.name", "permission.action",
			"permission.entity", "created_at", "updated_at",
		},
		DefaultSort: []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func environmentsEntity() *Entity {
	return &Entity{
		Name:       "environments",
		Table:      "environments",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "name", Column: "name", Kind: KindString},
			{Name: "description", Column: "description", Kind: KindString},
		}, auditFields()...),
		DefaultColumns:   []string{"id", "name", "description", "created_at"},
		AvailableColumns: []string{"id", "name", "description", "created_at", "updated_at"},
		DefaultSort:      []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func questionTypesEntity() *Entity {
	return &Entity{
		Name:       "question_types",
		Table:      "question_types",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "type", Column: "type", Kind: KindString},
		}, auditFields()...),
		DefaultColumns:   []string{"id", "type", "created_at"},
		AvailableColumns: []string{"id", "type", "created_at", "updated_at"},
		DefaultSort:      []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func questionsEntity() *Entity {
	return &Entity{
		Name:       "questions",
		Table:      "questions",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "text", Column: "text", Kind: KindString},
			{Name: "question_type_id", Column: "question_type_id", Kind: KindInt},
			{Name: "is_signature", Column: "is_signature", Kind: KindBool},
			{Name: "remarks", Column: "remarks", Kind: KindString},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "question_type", Target: "question_types", LocalColumn: "question_type_id", ForeignColumn: "id"},
		},
		DefaultColumns:   []string{"id", "text", "question_type.type", "is_signature", "created_at"},
		AvailableColumns: []string{"id", "text", "question_type.type", "is_signature", "remarks", "created_at", "updated_at"},
		DefaultSort:      []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func answersEntity() *Entity {
	return &Entity{
		Name:       "answers",
		Table:      "answers",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "value", Column: "value", Kind: KindString},
			{Name: "remarks", Column: "remarks", Kind: KindString},
		}, auditFields()...),
		DefaultColumns:   []string{"id", "value", "remarks", "created_at"},
		AvailableColumns: []string{"id", "value", "remarks", "created_at", "updated_at"},
		DefaultSort:      []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func formsEntity() *Entity {
	return &Entity{
		Name:       "forms",
		Table:      "forms",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "title", Column: "title", Kind: KindString},
			{Name: "description", Column: "description", Kind: KindString},
			{Name: "user_id", Column: "user_id", Kind: KindInt},
			{Name: "is_public", Column: "is_public", Kind: KindBool},
			{Name: "attachments_required", Column: "attachments_required", Kind: KindBool},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "creator", Target: "users", LocalColumn: "user_id", ForeignColumn: "id"},
		},
		DefaultColumns: []string{"id", "title", "description", "creator.username", "is_public", "created_at"},
		AvailableColumns: []string{
			"id", "title", "description", "creator.username", "creator.email",
			"is_public", "attachments_required", "created_at", "updated_at",
		},
		DefaultSort: []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func formQuestionsEntity() *Entity {
	return &Entity{
		Name:       "form_questions",
		Table:      "form_questions",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "form_id", Column: "form_id", Kind: KindInt},
			{Name: "question_id", Column: "question_id", Kind: KindInt},
			{Name: "order_number", Column: "order_number", Kind: KindInt},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "form", Target: "forms", LocalColumn: "form_id", ForeignColumn: "id"},
			{Name: "question", Target: "questions", LocalColumn: "question_id", ForeignColumn: "id"},
		},
		DefaultColumns:   []string{"id", "form.title", "question.text", "order_number"},
		AvailableColumns: []string{"id", "form.title", "question.text", "order_number", "created_at", "updated_at"},
		DefaultSort: []SortClause{
			{Field: "form_id", Direction: "asc"},
			{Field: "order_number", Direction: "asc"},
		},
	}
}

func formAnswersEntity() *Entity {
	return &Entity{
		Name:       "form_answers",
		Table:      "form_answers",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "form_question_id", Column: "form_question_id", Kind: KindInt},
			{Name: "answer_id", Column: "answer_id", Kind: KindInt},
			{Name: "remarks", Column: "remarks", Kind: KindString},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "form_question", Target: "form_questions", LocalColumn: "form_question_id", ForeignColumn: "id"},
			{Name: "answer", Target: "answers", LocalColumn: "answer_id", ForeignColumn: "id"},
		},
		DefaultColumns: []string{"id", "form_question.question.text", "answer.value", "remarks"},
		AvailableColumns: []string{
			"id", "form_question.form.title", "form_question.question.text",
			"answer.value", "remarks", "created_at", "updated_at",
		},
		DefaultSort: []SortClause{{Field: "id", Direction: "asc"}},
	}
}

func formSubmissionsEntity() *Entity {
	return &Entity{
		Name:       "form_submissions",
		Table:      "form_submissions",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "form_id", Column: "form_id", Kind: KindInt},
			{Name: "submitted_by", Column: "submitted_by", Kind: KindInt},
			{Name: "submitted_at", Column: "submitted_at", Kind: KindTime},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "form", Target: "forms", LocalColumn: "form_id", ForeignColumn: "id"},
			{Name: "submitter", Target: "users", LocalColumn: "submitted_by", ForeignColumn: "id"},
		},
		DefaultColumns: []string{"id", "form.title", "submitter.username", "submitted_at"},
		AvailableColumns: []string{
			"id", "form.title", "form.description", "submitter.username",
			"submitter.email", "submitted_at", "created_at", "updated_at",
		},
		DefaultSort: []SortClause{{Field: "submitted_at", Direction: "desc"}},
		HasAnswers:  true,
	}
}

func attachmentsEntity() *Entity {
	return &Entity{
		Name:       "attachments",
		Table:      "attachments",
		SoftDelete: true,
		Fields: append([]Field{
			{Name: "id", Column: "id", Kind: KindInt},
			{Name: "form_submission_id", Column: "form_submission_id", Kind: KindInt},
			{Name: "file_type", Column: "file_type", Kind: KindString},
			{Name: "file_path", Column: "file_path", Kind: KindString},
			{Name: "is_signature", Column: "is_signature", Kind: KindBool},
			{Name: "signature_position", Column: "signature_position", Kind: KindString},
			{Name: "signature_author", Column: "signature_author", Kind: KindString},
		}, auditFields()...),
		Relations: []Relation{
			{Name: "form_submission", Target: "form_submissions", LocalColumn: "form_submission_id", ForeignColumn: "id"},
		},
		DefaultColumns: []string{"id", "form_submission.form.title", "file_type", "is_signature", "created_at"},
		AvailableColumns: []string{
			"id", "form_submission.form.title", "file_type", "file_path",
			"is_signature", "signature_position", "signature_author",
			"created_at", "updated_at",
		},
		DefaultSort: []SortClause{{Field: "id", Direction: "asc"}},
	}
}
