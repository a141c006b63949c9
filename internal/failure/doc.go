// Package failure defines the error taxonomy shared by the packer and the
// launcher.
//
// Every error that crosses a package boundary is tagged with one of the
// sentinel markers through Wrap so callers can classify it with errors.Is (or
// Kind) without parsing messages. The launcher maps markers to process exit
// codes; the packer reports them per input file.
package failure
