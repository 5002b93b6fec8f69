/*
Writing a file "in place" is not crash-safe: a process killed halfway
through leaves a truncated file behind. Package atomicfile writes to a
temporary file in the destination directory and renames it over the
destination on Close, so readers either see the old file or the new
one, never a partial write.

	func writeFileAtomically(path string, data []byte) error {
		w, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// calling Close() twice is a no-op
		defer w.Close()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}
*/
package atomicfile
