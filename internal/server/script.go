package server

// clientScript speaks the LiveReload protocol over /livereload. CSS reloads
// swap stylesheet links in place; anything else reloads the page.
const clientScript = `(function () {
  if (window.__SITEPIPE_LR__) return;
  window.__SITEPIPE_LR__ = true;

  function reloadCSS(path) {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    var matched = false;
    for (var i = 0; i < links.length; i++) {
      var href = links[i].getAttribute('href') || '';
      var bare = href.split('?')[0];
      if (path && bare.slice(-path.length) !== path) continue;
      links[i].setAttribute('href', bare + '?livereload=' + Date.now());
      matched = true;
    }
    return matched;
  }

  function connect() {
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/livereload');
    ws.onopen = function () {
      ws.send(JSON.stringify({
        command: 'hello',
        protocols: ['http://livereload.com/protocols/official-7']
      }));
    };
    ws.onmessage = function (e) {
      var msg;
      try { msg = JSON.parse(e.data); } catch (_) { return; }
      if (msg.command !== 'reload') return;
      if (msg.liveCSS && reloadCSS(msg.path)) return;
      location.reload();
    };
    ws.onclose = function () {
      setTimeout(connect, 1000);
    };
  }

  connect();
})();
`
