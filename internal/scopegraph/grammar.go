package scopegraph

// Node-type strings below come straight from each Tree-sitter grammar; they
// are runtime strings, not values this package controls, and are grouped
// here purely so Build has one table per language to consult.

func goGrammar() grammar {
	return grammar{
		scopeNodeTypes: set("function_declaration", "method_declaration", "func_literal", "block"),
		defNodeTypes: setVal(
			"function_declaration", "func",
			"method_declaration", "method",
			"type_declaration", "type",
			"const_declaration", "const",
			"var_declaration", "var",
		),
		importNodeTypes: set("import_spec"),
		identifierTypes: set("identifier", "field_identifier", "type_identifier", "package_identifier"),
		scopingOf: map[string]string{
			// a var declared inside a block is visible to the rest of its
			// enclosing function, not just the block it's written in
			"var_declaration": "hoist",
			// consts are visible package-wide regardless of declaration site
			"const_declaration": "global",
		},
	}
}

func pythonGrammar() grammar {
	return grammar{
		scopeNodeTypes:  set("function_definition", "class_definition", "block"),
		defNodeTypes:    setVal("function_definition", "function", "class_definition", "class"),
		importNodeTypes: set("import_statement", "import_from_statement"),
		identifierTypes: set("identifier"),
	}
}

func rustGrammar() grammar {
	return grammar{
		scopeNodeTypes: set("function_item", "impl_item", "mod_item", "block"),
		defNodeTypes: setVal(
			"function_item", "function",
			"struct_item", "struct",
			"enum_item", "enum",
			"trait_item", "trait",
			"impl_item", "impl",
		),
		importNodeTypes: set("use_declaration"),
		identifierTypes: set("identifier", "type_identifier", "field_identifier"),
	}
}

func cGrammar() grammar {
	return grammar{
		scopeNodeTypes:  set("function_definition", "compound_statement"),
		defNodeTypes:    setVal("function_definition", "function", "struct_specifier", "struct"),
		importNodeTypes: set("preproc_include"),
		identifierTypes: set("identifier", "type_identifier", "field_identifier"),
	}
}

func cppGrammar() grammar {
	return grammar{
		scopeNodeTypes: set("function_definition", "class_specifier", "namespace_definition", "compound_statement"),
		defNodeTypes: setVal(
			"function_definition", "function",
			"class_specifier", "class",
			"struct_specifier", "struct",
			"namespace_definition", "namespace",
		),
		importNodeTypes: set("preproc_include"),
		identifierTypes: set("identifier", "type_identifier", "field_identifier", "namespace_identifier"),
	}
}

func javaGrammar() grammar {
	return grammar{
		scopeNodeTypes: set("class_declaration", "interface_declaration", "enum_declaration",
			"method_declaration", "constructor_declaration", "block"),
		defNodeTypes: setVal(
			"class_declaration", "class",
			"interface_declaration", "interface",
			"enum_declaration", "enum",
			"method_declaration", "method",
			"constructor_declaration", "constructor",
		),
		importNodeTypes: set("import_declaration"),
		identifierTypes: set("identifier", "type_identifier"),
	}
}

func jsGrammar() grammar {
	return grammar{
		scopeNodeTypes: set(
			"function_declaration", "class_declaration", "method_definition",
			"arrow_function", "function_expression", "statement_block",
			"interface_declaration",
		),
		defNodeTypes: setVal(
			"function_declaration", "function",
			"class_declaration", "class",
			"method_definition", "method",
			"interface_declaration", "interface",
			"type_alias_declaration", "type",
			"variable_declarator", "variable",
		),
		importNodeTypes: set("import_statement"),
		identifierTypes: set("identifier", "property_identifier", "type_identifier", "shorthand_property_identifier"),
		// `var` hoists to the enclosing function scope; `let`/`const`
		// declarators stay block-scoped (the grammar default of "local")
		scopingOf: map[string]string{"variable_declarator": "hoist"},
	}
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, i := range items {
		m[i] = true
	}
	return m
}

func setVal(pairs ...string) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m
}
