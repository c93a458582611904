// Package capture holds the in-page scripts that read a document's DOM and
// draw the index overlay, and the decoder for what they return.
package capture

// Script serializes the current document to JSON. Frame elements are not
// descended into; they carry frameOrdinal, their position in
// document.querySelectorAll("iframe, frame"), so the caller can switch
// into the frame and run Script again there.
const Script = `() => {
	const OVERLAY = 'bua-highlight-container';
	const SKIP = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'META', 'LINK']);
	const frames = Array.from(document.querySelectorAll('iframe, frame'));
	const vw = window.innerWidth;
	const vh = window.innerHeight;

	const isTop = (el, r) => {
		const x = r.left + r.width / 2;
		const y = r.top + r.height / 2;
		if (x < 0 || y < 0 || x >= vw || y >= vh) {
			return true;
		}
		const root = el.getRootNode();
		const scope = typeof root.elementFromPoint === 'function' ? root : document;
		for (let hit = scope.elementFromPoint(x, y); hit; hit = hit.parentElement) {
			if (hit === el) {
				return true;
			}
		}
		return false;
	};

	const walk = (node) => {
		if (node.nodeType === Node.TEXT_NODE) {
			const v = node.nodeValue;
			return v && v.trim() ? { text: true, value: v } : null;
		}
		if (node.nodeType !== Node.ELEMENT_NODE) {
			return null;
		}
		if (SKIP.has(node.tagName.toUpperCase()) || node.id === OVERLAY) {
			return null;
		}

		const out = { tag: node.tagName.toLowerCase() };
		if (node.attributes.length) {
			out.attrs = Array.from(node.attributes, (a) => ({ name: a.name, value: a.value }));
		}
		const st = window.getComputedStyle(node);
		out.display = st.display;
		out.visibility = st.visibility;
		const r = node.getBoundingClientRect();
		out.box = { x: r.left, y: r.top, width: r.width, height: r.height };
		if (r.width > 0 && r.height > 0) {
			out.top = isTop(node, r);
		}

		if (out.tag === 'iframe' || out.tag === 'frame') {
			out.frameOrdinal = frames.indexOf(node);
			return out;
		}

		const kids = [];
		if (node.shadowRoot) {
			out.shadowRoot = true;
			for (const c of node.shadowRoot.childNodes) {
				const k = walk(c);
				if (k) {
					k.inShadowRoot = true;
					kids.push(k);
				}
			}
		}
		for (const c of node.childNodes) {
			const k = walk(c);
			if (k) kids.push(k);
		}
		if (kids.length) {
			out.children = kids;
		}
		return out;
	};

	return JSON.stringify({
		url: location.href,
		title: document.title,
		viewport: { width: vw, height: vh },
		body: document.body ? walk(document.body) : null,
	});
}`

// QueryScript returns the first element inside an open shadow root that
// matches its selector argument, or null. Child combinators in the selector
// cross from a shadow root to its host. Selector lists are not split.
const QueryScript = `(selector) => {
	const parts = [];
	let quote = '';
	let depth = 0;
	let start = 0;
	for (let i = 0; i < selector.length; i++) {
		const ch = selector[i];
		if (ch === '\\') {
			i++;
		} else if (quote) {
			if (ch === quote) quote = '';
		} else if (ch === '"' || ch === "'") {
			quote = ch;
		} else if (ch === '[' || ch === '(') {
			depth++;
		} else if (ch === ']' || ch === ')') {
			depth--;
		} else if (depth === 0 && ch === ',') {
			return null;
		} else if (depth === 0 && ch === '>') {
			parts.push(selector.slice(start, i).trim());
			start = i + 1;
		}
	}
	parts.push(selector.slice(start).trim());

	const parentOf = (el) => {
		if (el.parentElement) return el.parentElement;
		const root = el.parentNode;
		return root instanceof ShadowRoot ? root.host : null;
	};
	const matches = (el) => {
		let cur = el;
		for (let i = parts.length - 1; i >= 0; i--) {
			if (!cur || !cur.matches(parts[i])) return false;
			if (i > 0) cur = parentOf(cur);
		}
		return true;
	};
	const search = (root) => {
		for (const el of root.querySelectorAll('*')) {
			if (root !== document && matches(el)) return el;
			if (el.shadowRoot) {
				const found = search(el.shadowRoot);
				if (found) return found;
			}
		}
		return null;
	};
	try {
		return search(document);
	} catch (e) {
		return null;
	}
}`

// HighlightScript draws one labelled box per mark in a fixed overlay.
// It takes the marks as its only argument.
const HighlightScript = `(marks) => {
	const ID = 'bua-highlight-container';
	let container = document.getElementById(ID);
	if (!container) {
		container = document.createElement('div');
		container.id = ID;
		container.style.cssText = 'position:fixed;top:0;left:0;width:0;height:0;pointer-events:none;z-index:2147483647;';
		document.documentElement.appendChild(container);
	}
	for (const m of marks) {
		const box = document.createElement('div');
		box.style.cssText = 'position:fixed;box-sizing:border-box;pointer-events:none;' +
			'left:' + m.box.x + 'px;top:' + m.box.y + 'px;' +
			'width:' + m.box.width + 'px;height:' + m.box.height + 'px;' +
			'border:2px solid ' + m.color + ';background:' + m.color + '1A;';
		const label = document.createElement('div');
		label.textContent = String(m.index);
		label.style.cssText = 'position:absolute;top:-2px;right:-2px;padding:1px 4px;' +
			'font:bold 11px sans-serif;color:#fff;border-radius:2px;background:' + m.color + ';';
		box.appendChild(label);
		container.appendChild(box);
	}
	return marks.length;
}`

// ClearScript removes the overlay drawn by HighlightScript.
const ClearScript = `() => {
	const container = document.getElementById('bua-highlight-container');
	if (container) {
		container.remove();
	}
	return true;
}`

// ClickScript dispatches a synthetic click on the element it is bound to.
const ClickScript = `(el) => el.click()`
