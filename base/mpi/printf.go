// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpi

import "fmt"

// PrintAllProcs causes Comm.Printf to print on all processors -- otherwise just 0
var PrintAllProcs = false

// Printf does fmt.Printf only on the 0 rank node (see also AllPrintf to do all)
// and PrintAllProcs var to override for debugging, and print all
func (cm *Comm) Printf(fs string, pars ...any) {
	if !PrintAllProcs && cm.Rank() > 0 {
		return
	}
	if cm.Rank() > 0 {
		cm.AllPrintf(fs, pars...)
	} else {
		fmt.Printf(fs, pars...)
	}
}

// AllPrintf does fmt.Printf on all nodes, with node rank printed first
// This is best for debugging MPI itself.
func (cm *Comm) AllPrintf(fs string, pars ...any) {
	fs = fmt.Sprintf("P%d: ", cm.Rank()) + fs
	fmt.Printf(fs, pars...)
}

// Println does fmt.Println only on the 0 rank node (see also AllPrintln to do all)
// and PrintAllProcs var to override for debugging, and print all
func (cm *Comm) Println(fs ...any) {
	if !PrintAllProcs && cm.Rank() > 0 {
		return
	}
	if cm.Rank() > 0 {
		cm.AllPrintln(fs...)
	} else {
		fmt.Println(fs...)
	}
}

// AllPrintln does fmt.Println on all nodes, with node rank printed first
// This is best for debugging MPI itself.
func (cm *Comm) AllPrintln(fs ...any) {
	fsa := make([]any, len(fs)+1)
	copy(fsa[1:], fs)
	fsa[0] = fmt.Sprintf("P%d:", cm.Rank())
	fmt.Println(fsa...)
}
