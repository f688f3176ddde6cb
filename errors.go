/*
 * errors.go, part of oxdna
 *
 * Copyright 2023 The oxdna developers
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package oxdna

import "fmt"

// CError is the concrete Error type for the main package.
type CError struct {
	msg  string
	deco []string
}

func (err CError) Error() string { return err.msg }

// Decorate adds new information to the error and returns the resulting
// decoration slice.
func (err CError) Decorate(deco string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since err.deco is a slice, and hence a pointer itself.
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// InvalidSelectionError is returned when a particle index selection is empty
// or refers to particles that do not exist in the configuration. Recover from
// it with errors.As.
type InvalidSelectionError struct {
	msg  string
	deco []string
}

func newInvalidSelection(format string, a ...interface{}) InvalidSelectionError {
	return InvalidSelectionError{msg: fmt.Sprintf(format, a...)}
}

func (err InvalidSelectionError) Error() string { return err.msg }

// Decorate adds new information to the error and returns the resulting
// decoration slice.
func (err InvalidSelectionError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}
