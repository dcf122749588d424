package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// epubDocument implements FragmentDocument over an EPUB container: a zip
// archive holding an OPF package (manifest + spine) and an NCX
// navigation map.
type epubDocument struct {
	archive   *zip.ReadCloser
	files     map[string]*zip.File
	spine     []SpineItem
	navPoints []NavPoint
}

// OpenEPUBDocument parses the container, package document and navigation
// map of an EPUB file. The archive stays open for lazy chapter reads;
// the caller must Close it when the reading session ends.
func OpenEPUBDocument(filePath string) (*epubDocument, error) {
	archive, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open epub archive: %w", err)
	}

	doc := &epubDocument{
		archive: archive,
		files:   make(map[string]*zip.File, len(archive.File)),
	}
	for _, f := range archive.File {
		doc.files[f.Name] = f
	}

	if err := doc.parse(); err != nil {
		archive.Close()
		return nil, err
	}
	return doc, nil
}

func (d *epubDocument) Close() error {
	return d.archive.Close()
}

func (d *epubDocument) Spine() []SpineItem {
	return d.spine
}

func (d *epubDocument) NavPoints() []NavPoint {
	return d.navPoints
}

// ChapterText reads one spine item and strips its markup down to text.
func (d *epubDocument) ChapterText(idref string) (string, error) {
	var href string
	for _, item := range d.spine {
		if item.IDRef == idref {
			href = item.Href
			break
		}
	}
	if href == "" {
		return "", fmt.Errorf("unknown spine item %q", idref)
	}
	raw, err := d.readFile(href)
	if err != nil {
		return "", err
	}
	return htmlToText(raw)
}

func (d *epubDocument) readFile(name string) ([]byte, error) {
	f, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("epub entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open epub entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageXML struct {
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc      string `xml:"toc,attr"`
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type ncxXML struct {
	NavMap struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	Label   string        `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

func (d *epubDocument) parse() error {
	containerRaw, err := d.readFile("META-INF/container.xml")
	if err != nil {
		return fmt.Errorf("epub is missing container.xml: %w", err)
	}
	var container containerXML
	if err := xml.Unmarshal(containerRaw, &container); err != nil {
		return fmt.Errorf("parse container.xml: %w", err)
	}
	if len(container.Rootfiles) == 0 {
		return fmt.Errorf("container.xml declares no rootfile")
	}
	opfPath := container.Rootfiles[0].FullPath

	opfRaw, err := d.readFile(opfPath)
	if err != nil {
		return fmt.Errorf("epub is missing package document: %w", err)
	}
	var pkg packageXML
	if err := xml.Unmarshal(opfRaw, &pkg); err != nil {
		return fmt.Errorf("parse package document: %w", err)
	}

	opfDir := path.Dir(opfPath)
	resolve := func(href string) string {
		if opfDir == "." {
			return href
		}
		return path.Join(opfDir, href)
	}

	idToHref := make(map[string]string, len(pkg.Manifest.Items))
	var ncxHref string
	for _, item := range pkg.Manifest.Items {
		idToHref[item.ID] = resolve(item.Href)
		if item.MediaType == "application/x-dtbncx+xml" || item.ID == pkg.Spine.Toc {
			ncxHref = resolve(item.Href)
		}
	}

	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := idToHref[ref.IDRef]
		if !ok {
			continue
		}
		var size int64
		if f, ok := d.files[href]; ok {
			size = int64(f.UncompressedSize64)
		}
		if size <= 0 {
			size = 1 // keep the location index well-defined
		}
		d.spine = append(d.spine, SpineItem{IDRef: ref.IDRef, Href: href, Size: size})
	}
	if len(d.spine) == 0 {
		return fmt.Errorf("epub spine is empty")
	}

	if ncxHref != "" {
		if ncxRaw, err := d.readFile(ncxHref); err == nil {
			var ncx ncxXML
			if err := xml.Unmarshal(ncxRaw, &ncx); err == nil {
				d.navPoints = flattenNavPoints(ncx.NavMap.NavPoints, 0, resolve)
			}
		}
	}

	return nil
}

func flattenNavPoints(points []ncxNavPoint, level int, resolve func(string) string) []NavPoint {
	var flat []NavPoint
	for _, point := range points {
		title := strings.TrimSpace(point.Label)
		if title != "" && point.Content.Src != "" {
			flat = append(flat, NavPoint{
				Title: title,
				Level: level,
				Href:  resolve(point.Content.Src),
			})
		}
		flat = append(flat, flattenNavPoints(point.Children, level+1, resolve)...)
	}
	return flat
}

// htmlToText extracts the visible text of a chapter document.
func htmlToText(raw []byte) (string, error) {
	root, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return "", fmt.Errorf("parse chapter markup: %w", err)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(trimmed)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return b.String(), nil
}
