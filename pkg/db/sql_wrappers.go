/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package db pkg/db/sql_wrappers.go wraps the concrete database/sql types so they satisfy
// the Row, Rows, Result and Transaction interfaces used by db.Service.
package db

import (
	"database/sql"
	"log"
)

// SQLRow wraps sql.Row to implement Row interface.
type SQLRow struct {
	*sql.Row
}

// SQLRows wraps sql.Rows to implement Rows interface.
type SQLRows struct {
	*sql.Rows
}

// SQLResult wraps sql.Result to implement Result interface.
type SQLResult struct {
	sql.Result
}

// SQLTx wraps sql.Tx to implement Transaction interface.
type SQLTx struct {
	*sql.Tx
}

func (tx *SQLTx) Exec(query string, args ...interface{}) (Result, error) {
	result, err := tx.Tx.Exec(query, args...)
	if err != nil {
		return nil, err
	}

	return &SQLResult{result}, nil
}

func (tx *SQLTx) Query(query string, args ...interface{}) (Rows, error) {
	rows, err := tx.Tx.Query(query, args...)
	if err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &SQLRows{rows}, nil
}

func (tx *SQLTx) QueryRow(query string, args ...interface{}) Row {
	return &SQLRow{tx.Tx.QueryRow(query, args...)}
}

func ToTransaction(tx *sql.Tx) Transaction {
	return &SQLTx{tx}
}

// CloseRows safely closes a Rows type and logs any error.
func CloseRows(rows Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("failed to close rows: %v", err)
	}
}
