package squashfs

import "strings"

// resolveFrom walks name, split on '/', starting from dir. Each path
// segment requires dir to currently be a directory (ErrNotADirectory
// otherwise) and looks the segment up among dir's entries (ErrNotFound if
// absent). A path of "" or "." returns dir unchanged.
func (img *Image) resolveFrom(dir *decodedInode, name string) (*decodedInode, error) {
	cur := dir
	name = strings.Trim(name, "/")
	if name == "" || name == "." {
		return cur, nil
	}

	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." {
			continue
		}
		if !cur.IsDir() {
			return nil, ErrNotADirectory
		}

		entries, err := img.ReadDir(cur)
		if err != nil {
			return nil, err
		}

		var next *decodedInode
		for _, e := range entries {
			if e.Name == seg {
				next = e.Inode
				break
			}
		}
		if next == nil {
			return nil, ErrNotFound
		}
		cur = next
	}

	return cur, nil
}
